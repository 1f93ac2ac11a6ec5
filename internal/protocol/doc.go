// Package protocol defines the envelopes exchanged with the Unity editor.
//
// Every message on the bridge is a single JSON object. Requests carry a
// correlation id, a method name and an object of parameters. Replies echo the
// id, report success, optionally carry a human readable message, and put any
// method-specific data in additional top-level fields.
//
// Wire format for a request:
//
//	{"id": "01J9Z...", "method": "get_menu_items", "params": {}}
//
// Wire format for a reply:
//
//	{"id": "01J9Z...", "success": true, "message": "Retrieved 2 menu items", "menuItems": ["File/New", "File/Open"]}
package protocol
