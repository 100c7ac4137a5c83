// Package dryrun provides a Provisioner that talks to nothing. It hands out
// identifiers the way the CI server would and records every operation so a
// run can be inspected before it is pushed for real.
package dryrun
