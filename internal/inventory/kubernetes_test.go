// ABOUTME: Tests for the Kubernetes inventory provider using a fake clientset.
// ABOUTME: Covers container status walking, owner resolution, and label flattening.

package inventory

import (
	"context"
	"testing"

	"github.com/pccs/cvreport/internal/types"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestSnapshotEmitsRecordPerContainerStatus(t *testing.T) {
	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      "web-7d9f8c6b5-x2k4j",
			Namespace: "frontend",
			Labels:    map[string]string{"tier": "frontend", "app": "web"},
			OwnerReferences: []metav1.OwnerReference{
				{Kind: "ReplicaSet", Name: "web-7d9f8c6b5"},
			},
		},
		Status: corev1.PodStatus{
			InitContainerStatuses: []corev1.ContainerStatus{
				{
					Name:    "init-migrations",
					Image:   "registry.example.com/migrate:v1",
					ImageID: "registry.example.com/migrate@sha256:aaa",
				},
			},
			ContainerStatuses: []corev1.ContainerStatus{
				{
					Name:    "web",
					Image:   "registry.example.com/web:v2",
					ImageID: "registry.example.com/web@sha256:bbb",
				},
			},
		},
	}

	provider := &KubernetesProvider{
		clientset: fake.NewSimpleClientset(pod),
		logger:    testLogger(),
	}

	records, err := provider.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, types.InventoryRecord{
		Namespace:  "frontend",
		ParentKind: "ReplicaSet",
		ParentName: "web-7d9f8c6b5",
		Image:      "registry.example.com/migrate:v1",
		ImageID:    "registry.example.com/migrate@sha256:aaa",
		Labels:     "app=web,tier=frontend",
	}, records[0])
	assert.Equal(t, "registry.example.com/web@sha256:bbb", records[1].ImageID)
}

func TestSnapshotStandalonePodUsesSentinel(t *testing.T) {
	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      "debug",
			Namespace: "default",
		},
		Status: corev1.PodStatus{
			ContainerStatuses: []corev1.ContainerStatus{
				{Name: "debug", Image: "busybox:1.36", ImageID: "docker.io/library/busybox@sha256:ccc"},
			},
		},
	}

	provider := &KubernetesProvider{
		clientset: fake.NewSimpleClientset(pod),
		logger:    testLogger(),
	}

	records, err := provider.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, types.NoneValue, records[0].ParentKind)
	assert.Equal(t, types.NoneValue, records[0].ParentName)
	assert.Equal(t, "", records[0].Labels)
}

func TestSnapshotUnstartedContainerGetsNoneSentinel(t *testing.T) {
	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      "pending",
			Namespace: "batch",
			OwnerReferences: []metav1.OwnerReference{
				{Kind: "Job", Name: "nightly"},
			},
		},
		Status: corev1.PodStatus{
			ContainerStatuses: []corev1.ContainerStatus{
				{Name: "worker"},
			},
		},
	}

	provider := &KubernetesProvider{
		clientset: fake.NewSimpleClientset(pod),
		logger:    testLogger(),
	}

	records, err := provider.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, types.NoneValue, records[0].Image)
	assert.Equal(t, types.NoneValue, records[0].ImageID)
	assert.False(t, records[0].Valid())
}

func TestSnapshotCoversAllNamespaces(t *testing.T) {
	podA := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: "a", Namespace: "ns-a"},
		Status: corev1.PodStatus{
			ContainerStatuses: []corev1.ContainerStatus{
				{Name: "a", Image: "img-a", ImageID: "id-a"},
			},
		},
	}
	podB := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: "b", Namespace: "ns-b"},
		Status: corev1.PodStatus{
			ContainerStatuses: []corev1.ContainerStatus{
				{Name: "b", Image: "img-b", ImageID: "id-b"},
			},
		},
	}

	provider := &KubernetesProvider{
		clientset: fake.NewSimpleClientset(podA, podB),
		logger:    testLogger(),
	}

	records, err := provider.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	namespaces := map[string]bool{}
	for _, r := range records {
		namespaces[r.Namespace] = true
	}
	assert.True(t, namespaces["ns-a"])
	assert.True(t, namespaces["ns-b"])
}

func TestFlattenLabelsDeterministic(t *testing.T) {
	labels := map[string]string{"c": "3", "a": "1", "b": "2"}
	for i := 0; i < 10; i++ {
		assert.Equal(t, "a=1,b=2,c=3", flattenLabels(labels))
	}
	assert.Equal(t, "", flattenLabels(nil))
}
