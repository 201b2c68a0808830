package ports

// Link reports whether the device has a usable network connection.
type Link interface {
	Up() bool
}
