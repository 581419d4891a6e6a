// Package retention prunes audit records by age and by total count, on
// demand or on a cron schedule.
package retention
