package source

import (
	"context"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/fields"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/discovery/cached/memory"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/restmapper"
	"k8s.io/client-go/tools/clientcmd"
)

// Cluster bundles what a live watch needs from a kubeconfig.
type Cluster struct {
	Client    dynamic.Interface
	Mapper    meta.RESTMapper
	Namespace string
}

// ClientFromKubeconfig loads a kubeconfig the way kubectl does. An empty
// path uses the default loading rules; an empty context the current one.
func ClientFromKubeconfig(path, context string) (*Cluster, error) {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if path != "" {
		rules.ExplicitPath = path
	}
	overrides := &clientcmd.ConfigOverrides{CurrentContext: context}
	cc := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides)

	restCfg, err := cc.ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load kubeconfig: %w", err)
	}
	ns, _, err := cc.Namespace()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve namespace: %w", err)
	}

	client, err := dynamic.NewForConfig(restCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic client: %w", err)
	}
	disco, err := discovery.NewDiscoveryClientForConfig(restCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create discovery client: %w", err)
	}
	mapper := restmapper.NewDeferredDiscoveryRESTMapper(memory.NewMemCacheClient(disco))

	return &Cluster{Client: client, Mapper: mapper, Namespace: ns}, nil
}

// ResolveResource turns a kubectl style resource argument such as
// "deployments", "deploy.apps" or "deployments.v1.apps" into a resource.
func ResolveResource(mapper meta.RESTMapper, arg string) (schema.GroupVersionResource, error) {
	if gvr, gr := schema.ParseResourceArg(arg); gvr != nil {
		if mapper == nil {
			return *gvr, nil
		}
		if resolved, err := mapper.ResourceFor(*gvr); err == nil {
			return resolved, nil
		}
		return mapper.ResourceFor(gr.WithVersion(""))
	} else if mapper != nil {
		return mapper.ResourceFor(gr.WithVersion(""))
	}
	return schema.GroupVersionResource{}, fmt.Errorf("cannot resolve resource %q without discovery", arg)
}

// Watch resolves resource and watches it in namespace, or in the
// kubeconfig namespace when that is empty. Cluster-scoped resources ignore
// the namespace.
func (c *Cluster) Watch(resource, name, namespace string) (*WatchSource, error) {
	gvr, err := ResolveResource(c.Mapper, resource)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve resource %q: %w", resource, err)
	}
	if namespace == "" {
		namespace = c.Namespace
	}
	if gvk, err := c.Mapper.KindFor(gvr); err == nil {
		if mapping, err := c.Mapper.RESTMapping(gvk.GroupKind(), gvk.Version); err == nil &&
			mapping.Scope.Name() == meta.RESTScopeNameRoot {
			namespace = ""
		}
	}
	return NewWatch(c.Client, gvr, namespace, name), nil
}

// WatchSource streams snapshots of live objects.
type WatchSource struct {
	client    dynamic.Interface
	gvr       schema.GroupVersionResource
	namespace string
	name      string
}

// NewWatch watches one object, or every object of the resource when name is
// empty.
func NewWatch(client dynamic.Interface, gvr schema.GroupVersionResource, namespace, name string) *WatchSource {
	return &WatchSource{client: client, gvr: gvr, namespace: namespace, name: name}
}

func (w *WatchSource) String() string {
	if w.name == "" {
		return w.gvr.Resource
	}
	return w.gvr.Resource + "/" + w.name
}

// Snapshots turns added and modified events into snapshots. A deletion ends
// the stream when a single object is watched.
func (w *WatchSource) Snapshots(ctx context.Context) (<-chan Event, <-chan error) {
	events := make(chan Event)
	errs := make(chan error, 1)

	go func() {
		defer close(errs)
		defer close(events)

		opts := metav1.ListOptions{}
		if w.name != "" {
			opts.FieldSelector = fields.OneTermEqualSelector("metadata.name", w.name).String()
		}
		wi, err := w.client.Resource(w.gvr).Namespace(w.namespace).Watch(ctx, opts)
		if err != nil {
			errs <- fmt.Errorf("failed to watch %s: %w", w, err)
			return
		}
		defer wi.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-wi.ResultChan():
				if !ok {
					return
				}
				switch ev.Type {
				case watch.Error:
					errs <- fmt.Errorf("watch %s failed: %w", w, apierrors.FromObject(ev.Object))
					return
				case watch.Added, watch.Modified, watch.Deleted:
					obj, ok := ev.Object.(*unstructured.Unstructured)
					if !ok {
						continue
					}
					deleted := ev.Type == watch.Deleted
					select {
					case events <- Event{Object: obj, Deleted: deleted}:
					case <-ctx.Done():
						return
					}
					if deleted && w.name != "" {
						return
					}
				}
			}
		}
	}()
	return events, errs
}
