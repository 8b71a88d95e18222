package stateshift

// Version is the generator version. It is part of every cache key, so a new
// generator never trusts outputs of an older one.
const Version = "v0.1.0"
