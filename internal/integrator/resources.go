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

package integrator

import (
	"strings"

	networkingv1 "k8s.io/api/networking/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"

	"github.com/charmkit/hello-kubecon/internal/relation"
)

const nginxPrefix = "nginx.ingress.kubernetes.io/"

// Labels marking the Ingress resources this charm owns. The relation
// label ties each resource to the relation that requested it, so a
// relation-broken hook can find what to clean up without the databag,
// which is gone by then.
const (
	managedByKey   = "app.juju.is/created-by"
	managedByValue = "nginx-ingress-integrator"
	relationKey    = "nginx-ingress.juju.is/relation"
)

// allowedRetryCodes is the proxy-next-upstream vocabulary nginx
// accepts; anything else in retry-errors is dropped.
var allowedRetryCodes = map[string]bool{
	"error":          true,
	"timeout":        true,
	"invalid_header": true,
	"http_500":       true,
	"http_502":       true,
	"http_503":       true,
	"http_504":       true,
	"http_403":       true,
	"http_404":       true,
	"http_429":       true,
	"non_idempotent": true,
	"off":            true,
}

// relationLabel renders a relation id as a legal label value
// ("ingress:0" is not one).
func relationLabel(relationID string) string {
	return strings.ReplaceAll(relationID, ":", "-")
}

// buildIngress materializes one ingress request as a
// networking.k8s.io/v1 Ingress.
func buildIngress(record *relation.Record, namespace, relationID string) *networkingv1.Ingress {
	serviceName := record.String("service_name")

	hosts := []string{record.String("service_hostname")}
	hosts = append(hosts, splitList(record.String("additional_hostnames"))...)

	paths := splitList(record.String("path_routes"))
	if len(paths) == 0 {
		paths = []string{"/"}
	}

	backend := networkingv1.IngressBackend{
		Service: &networkingv1.IngressServiceBackend{
			Name: serviceName,
			Port: networkingv1.ServiceBackendPort{Number: int32(record.Int("service_port"))},
		},
	}
	httpPaths := make([]networkingv1.HTTPIngressPath, 0, len(paths))
	for _, p := range paths {
		httpPaths = append(httpPaths, networkingv1.HTTPIngressPath{
			Path:     p,
			PathType: ptr.To(networkingv1.PathTypePrefix),
			Backend:  backend,
		})
	}
	rules := make([]networkingv1.IngressRule, 0, len(hosts))
	for _, host := range hosts {
		rules = append(rules, networkingv1.IngressRule{
			Host: host,
			IngressRuleValue: networkingv1.IngressRuleValue{
				HTTP: &networkingv1.HTTPIngressRuleValue{Paths: httpPaths},
			},
		})
	}

	ing := &networkingv1.Ingress{
		ObjectMeta: metav1.ObjectMeta{
			Name:      serviceName + "-ingress",
			Namespace: namespace,
			Labels: map[string]string{
				managedByKey: managedByValue,
				relationKey:  relationLabel(relationID),
			},
			Annotations: ingressAnnotations(record),
		},
		Spec: networkingv1.IngressSpec{Rules: rules},
	}
	if secret := record.String("tls_secret_name"); secret != "" {
		ing.Spec.TLS = []networkingv1.IngressTLS{{Hosts: hosts, SecretName: secret}}
	}
	return ing
}

// ingressAnnotations translates the tuning fields of a request into
// nginx ingress controller annotations.
func ingressAnnotations(record *relation.Record) map[string]string {
	annotations := make(map[string]string)

	if record.String("rewrite_enabled") != "false" {
		target := record.String("rewrite_target")
		if target == "" {
			target = "/"
		}
		annotations[nginxPrefix+"rewrite-target"] = target
	}
	if rps := record.String("limit_rps"); rps != "" {
		annotations[nginxPrefix+"limit-rps"] = rps
		if allow := record.String("limit_whitelist"); allow != "" {
			annotations[nginxPrefix+"limit-whitelist"] = allow
		}
	}
	if size := record.String("max_body_size"); size != "" {
		annotations[nginxPrefix+"proxy-body-size"] = size + "m"
	}
	if retry := retryCodes(record.String("retry_errors")); retry != "" {
		annotations[nginxPrefix+"proxy-next-upstream"] = retry
	}
	if maxAge := record.String("session_cookie_max_age"); maxAge != "" {
		annotations[nginxPrefix+"affinity"] = "cookie"
		annotations[nginxPrefix+"affinity-mode"] = "balanced"
		annotations[nginxPrefix+"session-cookie-change-on-failure"] = "true"
		annotations[nginxPrefix+"session-cookie-max-age"] = maxAge
		annotations[nginxPrefix+"session-cookie-name"] = strings.ToUpper(record.String("service_name")) + "_AFFINITY"
		annotations[nginxPrefix+"session-cookie-samesite"] = "Lax"
	}
	if record.String("tls_secret_name") == "" {
		annotations[nginxPrefix+"ssl-redirect"] = "false"
	}
	return annotations
}

// retryCodes renders the comma-separated retry-errors field in the
// space-separated form nginx expects.
func retryCodes(raw string) string {
	var codes []string
	for _, code := range splitList(raw) {
		if allowedRetryCodes[code] {
			codes = append(codes, code)
		}
	}
	return strings.Join(codes, " ")
}

func splitList(raw string) []string {
	var items []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
