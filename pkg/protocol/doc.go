/*
Package protocol implements the partial-update wire protocol.

Commands are built by one factory function per kind and serialized by
Dispatch into a single JSON array:

	[{"kind":"PREPARE_CLIENT","payload":{"businessPath":""}},
	 {"kind":"REDRAW_SUBTREE","payload":{"nodeId":"variant","markupToken":"..."}}]

A redirect supersedes every other command in the same response.
*/
package protocol
