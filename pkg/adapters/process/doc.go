// Package process runs allow-listed local commands as submit handlers.
//
// A handler receives the submit as environment variables:
//
//	FORMWIRE_SESSION_ID, FORMWIRE_FORM_ID, FORMWIRE_LOCALE
//	FORMWIRE_FIELD_<ID>   one per effective field value
//
// and answers on stdout with either a business path as plain text or a JSON
// object with business_path, external_url, error_key and error_args. A
// non-zero exit status is a failed submit that may be retried.
package process
