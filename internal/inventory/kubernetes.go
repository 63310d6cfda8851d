// ABOUTME: Kubernetes inventory provider producing one record per running container.
// ABOUTME: Walks pod statuses across all namespaces using the Kubernetes API.

package inventory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pccs/cvreport/internal/types"
	"github.com/sirupsen/logrus"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// KubernetesProvider implements inventory snapshots against a live cluster.
type KubernetesProvider struct {
	clientset kubernetes.Interface
	logger    *logrus.Logger
}

// NewKubernetesProvider connects to the cluster, preferring in-cluster
// config and falling back to the local kubeconfig for development.
func NewKubernetesProvider(logger *logrus.Logger) (*KubernetesProvider, error) {
	var config *rest.Config
	var err error

	config, err = rest.InClusterConfig()
	if err != nil {
		logger.Info("In-cluster config not available, trying kubeconfig")
		config, err = clientcmd.BuildConfigFromFlags("", clientcmd.RecommendedHomeFile)
		if err != nil {
			return nil, fmt.Errorf("failed to build kubernetes config: %w", err)
		}
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes clientset: %w", err)
	}

	logger.Info("Successfully connected to cluster")
	return &KubernetesProvider{
		clientset: clientset,
		logger:    logger,
	}, nil
}

// Name returns the provider name.
func (p *KubernetesProvider) Name() string {
	return "kubernetes"
}

// Snapshot lists pods in all namespaces and emits one record per init and
// regular container status. Containers that never started carry the
// "<none>" sentinel in their image fields and are weeded out downstream;
// no filtering happens here.
func (p *KubernetesProvider) Snapshot(ctx context.Context) ([]types.InventoryRecord, error) {
	log := p.logger.WithField("operation", "inventory_snapshot")

	pods, err := p.clientset.CoreV1().Pods("").List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list pods: %w", err)
	}

	log.WithField("pod_count", len(pods.Items)).Info("Processing pods")

	var records []types.InventoryRecord
	for _, pod := range pods.Items {
		parentKind, parentName := ownerOf(&pod)
		labels := flattenLabels(pod.Labels)

		for _, status := range pod.Status.InitContainerStatuses {
			records = append(records, containerRecord(pod.Namespace, parentKind, parentName, labels, status))
		}
		for _, status := range pod.Status.ContainerStatuses {
			records = append(records, containerRecord(pod.Namespace, parentKind, parentName, labels, status))
		}
	}

	log.WithField("container_records", len(records)).Info("Inventory snapshot completed")
	return records, nil
}

func containerRecord(namespace, parentKind, parentName, labels string, status corev1.ContainerStatus) types.InventoryRecord {
	record := types.InventoryRecord{
		Namespace:  namespace,
		ParentKind: parentKind,
		ParentName: parentName,
		Image:      status.Image,
		ImageID:    status.ImageID,
		Labels:     labels,
	}
	if record.Image == "" {
		record.Image = types.NoneValue
	}
	if record.ImageID == "" {
		record.ImageID = types.NoneValue
	}
	return record
}

// ownerOf reports the pod's first owner reference, or the sentinel for
// standalone pods.
func ownerOf(pod *corev1.Pod) (kind, name string) {
	if len(pod.OwnerReferences) == 0 {
		return types.NoneValue, types.NoneValue
	}
	return pod.OwnerReferences[0].Kind, pod.OwnerReferences[0].Name
}

// flattenLabels joins pod labels as "k=v,k=v" with sorted keys so the same
// label set always flattens identically.
func flattenLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+labels[k])
	}
	return strings.Join(parts, ",")
}
