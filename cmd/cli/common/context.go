package common

import (
	"errors"

	"github.com/jpnorenam/legacy-patcher/pkg/catalog"
	"github.com/jpnorenam/legacy-patcher/pkg/storage"
)

var ErrPermissionDenied = errors.New("permission denied, try again with sudo")

type Context struct {
	Verbose bool
	LogFile string
	Cache   storage.Cache
	Config  storage.Config
	Catalog *catalog.Catalog
}
