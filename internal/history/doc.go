// Package history records applied property changes in SQLite.
//
// Every change the sync engine applies, from either direction, lands in
// the property_history table with its origin tag. The table answers "what
// did this device do recently" without involving the fleet document, and
// is pruned by age on a periodic timer in the main loop.
//
// The recorder is optional: when history is disabled in configuration the
// engine simply runs without one.
package history
