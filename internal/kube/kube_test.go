package kube

import (
	"testing"

	"github.com/stretchr/testify/assert"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
)

func TestSchemeCoversCharmKinds(t *testing.T) {
	scheme := Scheme()

	assert.True(t, scheme.Recognizes(networkingv1.SchemeGroupVersion.WithKind("Ingress")))
	assert.True(t, scheme.Recognizes(corev1.SchemeGroupVersion.WithKind("Service")))
	assert.False(t, scheme.Recognizes(corev1.SchemeGroupVersion.WithKind("NoSuchKind")))
}
