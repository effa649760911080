// Package item holds the items of a Gray Logic site: named, typed values
// such as a light switch, a dimmer level or a room temperature.
//
// An Item carries its current state and notifies StateChangeListeners
// whenever the state is set (StateUpdated) and whenever it actually
// changes value (StateChanged). The rule engine is the main listener.
//
// The Registry keeps every item in memory, backed by a SQLite Repository
// for definitions and last known state, and notifies
// RegistryChangeListeners when items are added, removed or reloaded.
//
// The Updater connects the event bus to the registry: every StateEvent
// published on the bus is applied to the matching item.
//
//	┌────────────┐  StateEvent  ┌─────────┐ SetItemState ┌──────────┐
//	│ event.Bus  │ ───────────► │ Updater │ ───────────► │ Registry │
//	└────────────┘              └─────────┘              └────┬─────┘
//	                                                         │ Item.SetState
//	                                                         ▼
//	                                              StateUpdated / StateChanged
//	                                                  (rule engine)
package item
