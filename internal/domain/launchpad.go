package domain

import "time"

// LaunchpadStatuses are the bug task statuses counted on Launchpad, in column order.
var LaunchpadStatuses = []string{
	"New",
	"Incomplete",
	"Opinion",
	"Invalid",
	"Won't Fix",
	"Expired",
	"Confirmed",
	"Triaged",
	"In Progress",
	"Fix Committed",
	"Fix Released",
	"Does Not Exist",
}

// LaunchpadPoint holds bug counts per status for a project at one moment.
type LaunchpadPoint struct {
	Timestamp time.Time
	Counts    map[string]int
}
