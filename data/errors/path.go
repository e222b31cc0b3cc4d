package errors

func InvalidPath(err error, path string) error {
	return newError(ErrInvalidPath, err, "invalid path '%s'", path)
}

func InvalidURI(err error, uri string) error {
	return newError(ErrInvalidURI, err, "invalid uri '%s'", uri)
}

func Invalid(format string, args ...any) error {
	return newError(ErrInvalid, nil, format, args...)
}

func ProviderMismatch(path, other string) error {
	return newError(ErrProviderMismatch, nil, "'%s' and '%s' belong to different filesystems", path, other)
}

func NotExist(err error, path string) error {
	return newError(ErrNotExist, err, "file '%s' does not exist", path)
}

func Exist(path string) error {
	return newError(ErrExist, nil, "file '%s' already exists", path)
}

func IsDirectory(path string) error {
	return newError(ErrIsDirectory, nil, "'%s' is a directory", path)
}

func NotDirectory(path string) error {
	return newError(ErrNotDirectory, nil, "'%s' is not a directory", path)
}

func DirectoryNotEmpty(path string) error {
	return newError(ErrDirectoryNotEmpty, nil, "directory '%s' not empty", path)
}

func Unsupported(operation string) error {
	return newError(ErrUnsupported, nil, "%s is not supported by object storage", operation)
}

// NotCapable reports a capability the backend behind a file system lacks.
func NotCapable(backend, capability string) error {
	return newError(ErrUnsupported, nil, "backend '%s' does not support %s", backend, capability)
}
