// Package info provides the reference data consumed by audit exports: case
// types, per-case-type export field schemas, users, teams and case topics.
//
// Client and CaseworkClient read from the info and casework HTTP services
// with basic auth and retries on transient failures. FileDirectory serves the
// same data from a YAML file for offline use. Nothing is cached; every call
// fetches fresh data.
package info
