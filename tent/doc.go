/*
Package tent resolves Tent entity URIs into the entity's most recent public status posts

The main abstraction is a Resolver interface. BaseResolver does the full network resolution on every call: it fetches the entity document, discovers profile links (HTTP Link header and HTML <link> tags), fetches the first usable profile to learn the entity's API roots, and queries those roots for posts. Resolvers can be nested, somewhat like HTTP middleware; CacheResolver wraps any Resolver with a TTL cache, backed by an in-process LRU (MemoryCache) or a networked store (see the memcachecache and rediscache sub-packages).

Failures are reported as wrapped sentinel errors (ErrEmptyURI, ErrConnectionFailed, etc), which can be classified with ErrorKindOf.
*/
package tent
