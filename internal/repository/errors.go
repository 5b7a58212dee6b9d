package repository

import "errors"

var (
	ErrNotFound          = errors.New("запись не найдена")
	ErrVersionConflict   = errors.New("конфликт версий")
	ErrDuplicate         = errors.New("запись с таким значением уже существует")
	ErrActiveEntryExists = errors.New("у пользователя уже есть активная запись времени")
	ErrEntryStopped      = errors.New("запись времени уже остановлена")
)
