// Package db provides embedded database schema and seed data.
package db

import _ "embed"

// Schema contains the DDL statements for all application tables.
//
//go:embed migrations/001_schema.sql
var Schema string

// Catalog contains the demo menu, add-ons, coupons, and cashback seed data.
//
//go:embed seed/catalog.json
var Catalog []byte
