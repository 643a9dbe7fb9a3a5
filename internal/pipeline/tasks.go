package pipeline

import (
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// LastAppliedAnnotation is written by client-side `kubectl apply`.
const LastAppliedAnnotation = "kubectl.kubernetes.io/last-applied-configuration"

// forEach runs fn on each non-nil side.
func forEach(fn func(obj *unstructured.Unstructured), objs ...*unstructured.Unstructured) {
	for _, obj := range objs {
		if obj == nil || obj.Object == nil {
			continue
		}
		fn(obj)
	}
}

// ExcludeManagedFields drops metadata.managedFields from both sides.
func ExcludeManagedFields(before, after *unstructured.Unstructured) {
	forEach(func(obj *unstructured.Unstructured) {
		unstructured.RemoveNestedField(obj.Object, "metadata", "managedFields")
	}, before, after)
}

// ExcludeLastAppliedConfiguration drops the last-applied annotation, and the
// annotations map itself when nothing else is left in it.
func ExcludeLastAppliedConfiguration(before, after *unstructured.Unstructured) {
	forEach(func(obj *unstructured.Unstructured) {
		annotations, found, err := unstructured.NestedMap(obj.Object, "metadata", "annotations")
		if err != nil || !found {
			return
		}
		if _, ok := annotations[LastAppliedAnnotation]; !ok {
			return
		}
		if len(annotations) == 1 {
			unstructured.RemoveNestedField(obj.Object, "metadata", "annotations")
			return
		}
		unstructured.RemoveNestedField(obj.Object, "metadata", "annotations", LastAppliedAnnotation)
	}, before, after)
}

// ExcludeResourceVersion drops the server-maintained version counters.
func ExcludeResourceVersion(before, after *unstructured.Unstructured) {
	forEach(func(obj *unstructured.Unstructured) {
		unstructured.RemoveNestedField(obj.Object, "metadata", "resourceVersion")
		unstructured.RemoveNestedField(obj.Object, "metadata", "generation")
	}, before, after)
}

// ExcludeStatus drops the status stanza.
func ExcludeStatus(before, after *unstructured.Unstructured) {
	forEach(func(obj *unstructured.Unstructured) {
		unstructured.RemoveNestedField(obj.Object, "status")
	}, before, after)
}
