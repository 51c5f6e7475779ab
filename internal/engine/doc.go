// Package engine defines the boundary between vidx and the external download engine.
//
// The engine is reachable only through an asynchronous message channel. Two kinds of traffic cross it:
//
//  1. Requests issued by vidx and answered by the engine ([Commands]): paging, start/stop, add/edit/delete,
//     audio conversion, logs and a few desktop helpers.
//  2. Push events emitted by the engine at arbitrary times ([Event]): progress samples, lifecycle changes,
//     item menu actions and out-of-band notifications.
//
// Push events form a closed set enumerated by [EventKind]; each kind has a statically typed payload.
// Item menu actions are the tagged union [ItemAction], dispatched through [ItemActionHandler] so that adding
// a variant breaks every handler at compile time instead of falling through a string switch.
//
// Delivery uses [Bus], a typed publish/subscribe registry. Every [Bus.On] returns a [Subscription] token
// that must be handed back to [Bus.Off]; this is what keeps registrations and deregistrations exactly paired.
//
// # Transport
//
// [Client] speaks a small JSON protocol over a gorilla/websocket connection: requests carry a uuid that the
// matching response echoes, events carry only a name and a payload. [Server] is the other end of the same
// protocol and exposes any [Engine] implementation over HTTP.
//
// Every mutating call's result is advisory. Callers reconcile by fetching the next page.
package engine
