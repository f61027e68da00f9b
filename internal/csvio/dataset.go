package csvio

import (
	"io"
	"os"
	"path/filepath"

	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/errors"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/pkg/types"
)

// File stems of the raw tables.
const (
	UsersFile    = "users.csv"
	SessionsFile = "sessions.csv"
	EventsFile   = "events.csv"
	OrdersFile   = "orders.csv"
)

// Files lists the raw file stems in load order.
func Files() []string {
	return []string{UsersFile, SessionsFile, EventsFile, OrdersFile}
}

// PathFor returns the path of a raw file inside dir.
func PathFor(dir, name string, compress bool) string {
	p := filepath.Join(dir, name)
	if compress {
		p += SnappyExt
	}
	return p
}

// Locate finds name inside dir, preferring the plain file over the
// compressed one.
func Locate(dir, name string) (string, error) {
	for _, p := range []string{PathFor(dir, name, false), PathFor(dir, name, true)} {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", errors.NewExportError(errors.CodeReadFailed, "missing "+name+" in "+dir, os.ErrNotExist)
}

// WriteDataset writes the four raw tables into dir and returns the paths
// written in load order.
func WriteDataset(dir string, ds *types.Dataset, compress bool) ([]string, error) {
	writers := []struct {
		name  string
		write func(io.Writer) error
	}{
		{UsersFile, func(w io.Writer) error { return WriteUsers(w, ds.Users) }},
		{SessionsFile, func(w io.Writer) error { return WriteSessions(w, ds.Sessions) }},
		{EventsFile, func(w io.Writer) error { return WriteEvents(w, ds.Events) }},
		{OrdersFile, func(w io.Writer) error { return WriteOrders(w, ds.Orders) }},
	}

	paths := make([]string, 0, len(writers))
	for _, wr := range writers {
		path := PathFor(dir, wr.name, compress)
		if err := writeFile(path, wr.write); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := Create(path)
	if err != nil {
		return errors.NewExportError(errors.CodeWriteFailed, "create "+path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.NewExportError(errors.CodeWriteFailed, "close "+path, err)
	}
	return nil
}

// ReadDataset reads the raw tables from dir. Each file may be plain or
// Snappy-framed.
func ReadDataset(dir string) (*types.Dataset, error) {
	ds := &types.Dataset{}
	readers := []struct {
		name string
		read func(io.Reader) error
	}{
		{UsersFile, func(r io.Reader) (err error) { ds.Users, err = ReadUsers(r); return }},
		{SessionsFile, func(r io.Reader) (err error) { ds.Sessions, err = ReadSessions(r); return }},
		{EventsFile, func(r io.Reader) (err error) { ds.Events, err = ReadEvents(r); return }},
		{OrdersFile, func(r io.Reader) (err error) { ds.Orders, err = ReadOrders(r); return }},
	}

	for _, rd := range readers {
		path, err := Locate(dir, rd.name)
		if err != nil {
			return nil, err
		}
		if err := readFile(path, rd.read); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

func readFile(path string, read func(io.Reader) error) error {
	f, err := Open(path)
	if err != nil {
		return errors.NewExportError(errors.CodeReadFailed, "open "+path, err)
	}
	defer f.Close()
	return read(f)
}
