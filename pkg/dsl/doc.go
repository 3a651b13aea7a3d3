/*
Package dsl builds form definitions in Go instead of YAML.

	b := dsl.New()
	b.Form("i18n.newlang").
		BusinessPath("[Admin:0][I18n:0][NewLanguage:0]").
		OnSubmit("i18n.create_language").
		Text("country").Label("configuration.newlang.country").Value("").Done().
		Text("variant").Label("configuration.newlang.variant").Done().
		Submit("submit", "configuration.newlang.submit").
		When("country").IsEmpty().Hide("variant").
		When("country").Matches(".{2}").Show("variant")

	loader, err := b.Build()

The loader can be passed to formwire.New like one read from files.
*/
package dsl
