// Package normalize turns resource snapshots into the canonical YAML text
// fed to the diff backends.
package normalize

import (
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/yaml"
)

// SerializationError reports an object that could not be canonicalized.
type SerializationError struct {
	Kind string
	Name string
	Err  error
}

func (e *SerializationError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("failed to serialize object: %v", e.Err)
	}
	return fmt.Sprintf("failed to serialize %s %q: %v", e.Kind, e.Name, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// Normalize serializes obj to YAML with map keys sorted, so equal objects
// always produce identical bytes. A nil object yields an empty document.
func Normalize(obj *unstructured.Unstructured) ([]byte, error) {
	if obj == nil || obj.Object == nil {
		return []byte{}, nil
	}
	// sigs.k8s.io/yaml goes through encoding/json, which sorts map keys.
	out, err := yaml.Marshal(obj.Object)
	if err != nil {
		return nil, &SerializationError{Kind: obj.GetKind(), Name: obj.GetName(), Err: err}
	}
	return out, nil
}

// Clone returns a deep copy of obj, or nil. Values outside the JSON data
// model make the copy fail with a SerializationError.
func Clone(obj *unstructured.Unstructured) (out *unstructured.Unstructured, err error) {
	if obj == nil {
		return nil, nil
	}
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = &SerializationError{Kind: obj.GetKind(), Name: obj.GetName(), Err: fmt.Errorf("%v", r)}
		}
	}()
	return obj.DeepCopy(), nil
}

// Key identifies the resource a snapshot belongs to.
func Key(obj *unstructured.Unstructured) string {
	if obj == nil {
		return ""
	}
	key := obj.GetKind() + "/" + obj.GetName()
	if ns := obj.GetNamespace(); ns != "" {
		key = ns + "/" + key
	}
	return key
}
