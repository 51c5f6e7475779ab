// package tasks keeps an in-memory, paginated view of the engine's download tasks consistent with user commands,
// push events and bulk operations.
//
// The engine is the source of truth. Every mutating call is followed by a refresh of the current page and the
// call's own return value is treated as advisory. The pieces are:
//
//   - [Store] fetches pages and discards responses that resolve after a newer request
//   - [ProgressMap] keeps the latest progress sample per task id
//   - [Bridge] pairs event subscriptions with the list's active lifetime
//   - [Selection] tracks selected ids and is cleared after every bulk mutation
//   - [Executor] runs bulk actions as an ordered, fail-fast pipeline
//   - [Transient] holds in-flight UI flags that are always cleared
//   - [Compose] derives display rows from all of the above
//
// [TaskList] ties them together and reports outcomes as [Notice] values for CLI/UI layers.
package tasks
