/*
Package formwire is the UI kernel of a server-rendered learning-management
application: it keeps one component tree per session, applies declarative
dependency rules between form fields and turns every user interaction into a
short, ordered list of partial-update commands for the browser.

# Concept

A form definition (YAML or the dsl package) describes fields, their
validation and the rules between them ("hide the variant while the country
is empty"). Each session holds a fresh instance of it. When the browser
reports an interaction, the kernel runs one event cycle:

	IDLE -> EVENT_RECEIVED -> RULES_EVALUATED -> TREE_DIFFED -> COMMANDS_BUILT -> DISPATCHED -> IDLE

Only nodes whose visible state changed are redrawn, and a redirect replaces
every other command. Cycles of one session never overlap, and a cycle that
hits a failing collaborator leaves the session exactly as it was, so the
same event can simply be sent again.

# Usage

	loader, err := file.NewLoader("./forms")
	if err != nil {
		log.Fatal(err)
	}
	handlers := registry.NewRegistry()
	handlers.RegisterFunc("i18n.create_language", createLanguage)

	k, err := formwire.New(loader, formwire.WithHandlers(handlers))
	if err != nil {
		log.Fatal(err)
	}

	id, page, err := k.Open(ctx, "i18n.newlang", "de")
	// send page to the browser ...

	country := "CH"
	commands, err := k.SubmitEvent(ctx, id, "country", &country)
	// [{"kind":"PREPARE_CLIENT",...},{"kind":"REDRAW_SUBTREE",...}]

The HTTP and MCP adapters under pkg/adapters expose the same operations to
browsers and agents.
*/
package formwire
