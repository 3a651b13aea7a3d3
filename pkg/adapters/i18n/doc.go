// Package i18n implements ports.Translator over YAML message catalogs.
package i18n
