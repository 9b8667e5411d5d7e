package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/rushteam/hybridrec/core"
)

// LoadCatalog 读取目录文件：.json 或 .yaml/.yml，内容为物品数组。
//
//	[{"id": 0, "title": "Go Basics", "body": "..."}]
func LoadCatalog(path string) ([]core.CatalogItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var items []core.CatalogItem
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, &items)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &items)
	default:
		return nil, core.NewValidationError(core.ModuleEngine, "catalog: unsupported file type %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return items, nil
}
