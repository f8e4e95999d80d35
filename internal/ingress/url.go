/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package ingress

import (
	"fmt"

	"github.com/charmkit/hello-kubecon/internal/relation"
)

const (
	schemeHTTP  = "http"
	schemeHTTPS = "https"
)

// URL derives the address a provider will serve the request on: https
// when a TLS secret is named, with the port omitted when it is the
// scheme's standard one.
func URL(record *relation.Record) string {
	scheme := schemeHTTP
	if record.String("tls_secret_name") != "" {
		scheme = schemeHTTPS
	}
	endpoint := fmt.Sprintf("%s://%s", scheme, record.String("service_hostname"))
	if port := record.Int("service_port"); !isStandardPort(scheme, port) {
		endpoint = fmt.Sprintf("%s:%d", endpoint, port)
	}
	return endpoint + "/"
}

// isStandardPort checks if the port is standard for the scheme.
func isStandardPort(scheme string, port int64) bool {
	return (scheme == schemeHTTP && port == 80) ||
		(scheme == schemeHTTPS && port == 443)
}
