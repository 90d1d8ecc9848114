// Package link implements link record updates on Insteon endpoints.
//
// Table sends record writes, deletes and table downloads for one endpoint
// and applies acknowledged changes to its mirror. Updater builds the
// two-phase add and delete operations on top of it.
package link
