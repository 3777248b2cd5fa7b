package model

import "errors"

var (
	ErrNotFound  = errors.New("appointment not found")
	ErrSlotTaken = errors.New("time slot already booked")
)
