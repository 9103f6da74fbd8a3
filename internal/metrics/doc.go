// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics registers the Prometheus collectors exported by tvinputd.
//
// Collectors live in the default registry and are served by promhttp on the
// metrics listener. Every name carries the tvinput_ prefix. Labels are
// bounded: sources are labelled by name, platform message types by number.
package metrics
