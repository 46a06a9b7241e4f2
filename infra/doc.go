// Package infra contains technical adapters such as dataset sources, the
// model store, the MQTT transport and metrics exporters. These packages
// should depend only on the interfaces defined in the core packages.
package infra
