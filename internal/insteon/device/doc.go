// Package device implements generic remote Insteon devices: link database
// download, link add and delete, and pairing with the modem.
package device
