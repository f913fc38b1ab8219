package storage

type storageError string

const (
	ErrNotFound  = storageError("not found")
	ErrNotUnique = storageError("not unique")
)

func (e storageError) Error() string {
	return string(e)
}
