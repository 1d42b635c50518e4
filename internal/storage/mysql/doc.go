// Package mysql persists the preview audit trail, either to MySQL or to a
// local JSON lines file for single-node setups.
package mysql
