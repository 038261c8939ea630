package domain

// KeyPrefix namespaces all menuquery keys in the shared key-value store.
const KeyPrefix = "menuquery:"
