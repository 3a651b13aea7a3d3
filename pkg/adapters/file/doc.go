// Package file loads form definitions from YAML files.
//
// A file may hold several definitions separated by "---". Field and rule
// keys use snake_case:
//
//	id: i18n.newlang
//	business_path: "[Admin:0][I18n:0][NewLanguage:0]"
//	on_submit: i18n.create_language
//	fields:
//	  - id: country
//	    kind: text
//	    max_length: 2
//	rules:
//	  - trigger: country
//	    match: empty
//	    action: HIDE
//	    targets: [variant]
package file
