// Package configplane implements the admin-backed configuration surface:
// feature flags, backend descriptors, model execution configs, and
// encrypted-at-rest API credentials, all served from a TTL cache (one fill
// time shared by all kinds) that is invalidated by push from the admin
// surface rather than polled down to zero.
//
// Grounded on the teacher's config.HotReloadManager and config.FileWatcher
// (github.com/BaSui01/agentflow, now github.com/ariavoice/control-plane's
// own config/hotreload.go, config/watcher.go): the change-detection,
// callback, and sanitized-snapshot idioms are kept, generalized from a
// single monolithic *Config struct to the store/cache/credential split
// this domain needs.
package configplane
