package serve

import (
	"embed"
	"net/http"
	"os"

	assetfs "github.com/elazarl/go-bindata-assetfs"
)

//go:embed web
var webFS embed.FS

// frontend exposes the embedded web directory through assetfs.
func frontend() *assetfs.AssetFS {
	return &assetfs.AssetFS{
		Asset: webFS.ReadFile,
		AssetDir: func(path string) ([]string, error) {
			entries, err := webFS.ReadDir(path)
			if err != nil {
				return nil, err
			}
			names := make([]string, 0, len(entries))
			for _, e := range entries {
				names = append(names, e.Name())
			}
			return names, nil
		},
		AssetInfo: func(path string) (os.FileInfo, error) {
			f, err := webFS.Open(path)
			if err != nil {
				return nil, err
			}
			defer f.Close()
			return f.Stat()
		},
		Prefix: "web",
	}
}

func NewFrontendServer() http.Handler {
	return http.FileServer(frontend())
}
