// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package workload

// CatalogueItem is the entry the application publishes to catalogues.
type CatalogueItem struct {
	Name        string
	Icon        string
	URL         string
	Description string
}

func studioCatalogueItem(url string) CatalogueItem {
	return CatalogueItem{
		Name:        "Foxglove-studio",
		Icon:        "bar-chart",
		URL:         url,
		Description: "Foxglove-studio allows you to robotics data",
	}
}

func (item CatalogueItem) databag() map[string]string {
	return map[string]string{
		"name":        item.Name,
		"icon":        item.Icon,
		"url":         item.URL,
		"description": item.Description,
	}
}
