// Package factory provides a small generic registry used to instantiate modules
// from configuration. Modules are defined by a type string and a map of raw
// settings. Factories decode the settings into typed structs and return the
// concrete implementation.
//
// Example usage:
//
//	reg := factory.NewRegistry[dataset.Source]()
//	reg.Register("csv", func(conf map[string]any) (dataset.Source, error) {
//	    var c struct{ Path string `json:"path"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return csvSource{path: c.Path}, nil
//	})
//	src, err := reg.Create(factory.ModuleConfig{Type: "csv", Conf: map[string]any{"path": "routes.csv"}})
package factory
