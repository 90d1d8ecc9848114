// Package db holds the local mirror of an endpoint's all-link database and
// its persistence.
//
// A Mirror is loaded at startup from a Store (FileStore writes one JSON
// document per endpoint, SQLiteStore keeps the same documents in the bridge
// database) and saved after every acknowledged change or refresh.
package db
