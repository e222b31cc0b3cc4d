package errors

func NoSuchElement(format string, args ...any) error {
	return newError(ErrNoSuchElement, nil, format, args...)
}

func FileSystemNotFound(key string) error {
	return newError(ErrFileSystemNotFound, nil, "filesystem '%s' not found", key)
}

func FileSystemExists(key string) error {
	return newError(ErrFileSystemExists, nil, "filesystem '%s' already exists", key)
}

func FileSystemClosed(key string) error {
	return newError(ErrFileSystemClosed, nil, "filesystem '%s' is closed", key)
}

func IO(err error, operation, path string) error {
	return newError(ErrIO, err, "%s '%s' failed", operation, path)
}
