package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/bluele/gcache"

	"train-live-viewer/metrics"
	"train-live-viewer/models"
)

const historyMemoSize = 128

// FormationReader resolves formations and car history
type FormationReader interface {
	Resolve(ctx context.Context, trainNo string) (*models.Formation, error)
	History(ctx context.Context, assetNumber string) (*models.CarHistory, error)
}

// FormationView tracks the formation shown for one train and the car the
// user is looking at. Car history is fetched once per asset while the same
// train stays resolved.
type FormationView struct {
	reader  FormationReader
	metrics *metrics.Collector

	mu        sync.Mutex
	trainNo   string
	formation *models.Formation
	history   gcache.Cache
	index     int
}

func NewFormationView(reader FormationReader, m *metrics.Collector) *FormationView {
	return &FormationView{
		reader:  reader,
		metrics: m,
		history: gcache.New(historyMemoSize).LRU().Build(),
		index:   -1,
	}
}

// Open resolves the formation of a train. Resolving a different train
// discards the history memo and the current selection.
func (v *FormationView) Open(ctx context.Context, trainNo string) (*models.Formation, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.formation != nil && v.trainNo == trainNo {
		return v.formation, nil
	}

	f, err := v.reader.Resolve(ctx, trainNo)
	if err != nil {
		return nil, err
	}

	if v.trainNo != trainNo {
		v.history.Purge()
	}
	v.trainNo = trainNo
	v.formation = f
	v.index = -1
	return f, nil
}

// Select makes a car of the open formation the current one
func (v *FormationView) Select(ctx context.Context, assetNumber string) (*models.CarDetail, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.formation == nil {
		return nil, fmt.Errorf("%w: no formation open", ErrInvalidInput)
	}
	idx := -1
	for i, a := range v.formation.AllCars {
		if a == assetNumber {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("car %s not in train %s: %w", assetNumber, v.trainNo, ErrFormationNotFound)
	}
	return v.moveTo(ctx, idx)
}

// Next steps to the following car. At the last car it stays put.
func (v *FormationView) Next(ctx context.Context) (*models.CarDetail, error) {
	return v.step(ctx, 1)
}

// Previous steps to the preceding car. At the first car it stays put.
func (v *FormationView) Previous(ctx context.Context) (*models.CarDetail, error) {
	return v.step(ctx, -1)
}

func (v *FormationView) step(ctx context.Context, delta int) (*models.CarDetail, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.formation == nil || v.index < 0 {
		return nil, fmt.Errorf("%w: no car selected", ErrInvalidInput)
	}
	idx := v.index + delta
	if idx < 0 || idx >= len(v.formation.AllCars) {
		idx = v.index
	}
	return v.moveTo(ctx, idx)
}

// moveTo loads history for the car at idx and selects it. The selection
// only changes when the history load succeeds. Callers hold v.mu.
func (v *FormationView) moveTo(ctx context.Context, idx int) (*models.CarDetail, error) {
	asset := v.formation.AllCars[idx]
	h, err := v.carHistory(ctx, asset)
	if err != nil {
		return nil, err
	}
	v.index = idx

	d := &models.CarDetail{
		AssetNumber: asset,
		Index:       idx,
		Total:       len(v.formation.AllCars),
		History:     h,
	}
	if idx > 0 {
		d.Previous = v.formation.AllCars[idx-1]
	}
	if idx < len(v.formation.AllCars)-1 {
		d.Next = v.formation.AllCars[idx+1]
	}
	return d, nil
}

func (v *FormationView) carHistory(ctx context.Context, asset string) (*models.CarHistory, error) {
	if cached, err := v.history.Get(asset); err == nil {
		v.metrics.CacheHit("history")
		return cached.(*models.CarHistory), nil
	}
	v.metrics.CacheMiss("history")

	h, err := v.reader.History(ctx, asset)
	if err != nil {
		return nil, err
	}
	_ = v.history.Set(asset, h)
	return h, nil
}

// Formation returns the open formation, or nil
func (v *FormationView) Formation() *models.Formation {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.formation
}
