// Package modem implements the local Insteon modem: its link database,
// link updates, linking mode and the refresh of every known database.
//
// A Modem owns the device Registry and creates the configured remote
// devices, so it is the single handle the command and bridge layers need:
//
//	m := modem.New(modem.Options{
//	    Address:    addr,
//	    Protocol:   queue,
//	    Store:      db.FileStore{},
//	    StorageDir: cfg.Insteon.Storage,
//	    Logger:     log,
//	})
//	m.LoadConfig(modem.Config{Devices: devices, StartupRefresh: true})
//	m.RefreshAll(true, func(ok bool, msg string, _ any) { log.Info(msg) })
package modem
