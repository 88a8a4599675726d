package services

import (
	"errors"
	"fmt"
)

var (
	// ErrDataUnavailable means the relational store could not be read or written
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrScheduleQueryFailed means the timetable search upstream failed
	ErrScheduleQueryFailed = errors.New("schedule query failed")
	ErrTrainNotFound       = errors.New("train not found")
	ErrLiveUnavailable     = errors.New("live status unavailable")
	ErrFormationNotFound   = errors.New("formation not found")
	ErrStationNotFound     = errors.New("station not found")
	ErrDateOutOfRange      = errors.New("date out of range")
	ErrViewNotFound        = errors.New("view not found")
	ErrInvalidInput        = errors.New("invalid input")
)

func storeError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrDataUnavailable, err)
}
