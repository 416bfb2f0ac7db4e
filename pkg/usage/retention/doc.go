// Package retention keeps the usage ledger bounded. A Pruner removes
// records past the retention window and trims the ledger to a maximum
// size; a Scheduler runs it on a cron schedule.
package retention
