/*
Package domain contains the core models of the form kernel.

It defines the component tree with its dirty marks, form fields, trigger
matchers, dependency rules and the error taxonomy shared by every other
package. Nothing here performs I/O.

# Key Entities

  - ComponentNode: a node of the server-side component tree.
  - Field: a form element with value, visibility, enablement and error state.
  - Matcher: the predicate a rule applies to its trigger value.
  - DependencyRule: binds a trigger to a SHOW/HIDE/ENABLE/DISABLE effect.
  - SessionState: the persisted state of one user session.
*/
package domain
