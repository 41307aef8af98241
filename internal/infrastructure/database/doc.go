// Package database provides SQLite connectivity for the property-history
// store.
//
// The fleet document itself is NOT kept here: the ConfigStore owns that as
// a hand-editable YAML file. SQLite is used only for the append-mostly
// history of property changes, where a real database earns its keep
// (indexed queries, pruning by age, WAL-mode concurrent reads).
//
// # Usage
//
//	db, err := database.Open(database.Config{
//	    Path:        cfg.History.Path,
//	    WALMode:     cfg.History.WALMode,
//	    BusyTimeout: cfg.History.BusyTimeout,
//	})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
package database
