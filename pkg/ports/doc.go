/*
Package ports defines the driven ports (interfaces) of the form kernel.

These interfaces decouple the event loop from its collaborators, so rendering,
routing, translation, business logic and persistence can be swapped per
deployment.

# Key Interfaces

  - DefinitionLoader: loads read-only form definitions (memory, YAML files).
  - SessionStore: persists session state between requests (memory, Redis).
  - DistributedLocker: serializes cycles of one session across replicas.
  - Renderer, RedirectResolver, Translator, SubmitHandler: collaborators
    called during an event cycle.
  - Kernel: the entry points driven by transport adapters.
*/
package ports
