package models

import "time"

// UsagePeriodFormat renders a time as the usage counter period key.
const UsagePeriodFormat = "2006-01"

// UsageCounter tracks scans performed by one identity within one period.
// Created on first scan attempt; never deleted in normal operation.
// Reset policy is external.
type UsageCounter struct {
	Identity  string    `json:"identity"`
	Period    string    `json:"period"`
	Count     int       `json:"count"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CurrentPeriod returns the period key for the given time.
func CurrentPeriod(now time.Time) string {
	return now.UTC().Format(UsagePeriodFormat)
}
