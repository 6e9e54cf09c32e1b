package kubernetes

import (
	"context"
	"fmt"
	"os"

	apperrors "github.com/berkguzel/pstar/internal/errors"
	"github.com/berkguzel/pstar/pkg/analyzer"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// RoleAnnotation binds a service account to an IAM role (IRSA).
const RoleAnnotation = "eks.amazonaws.com/role-arn"

type Client struct {
	clientset kubernetes.Interface
}

// NewClient uses the in-cluster config when running in a pod, and the
// kubeconfig at kubeconfigPath otherwise.
func NewClient(kubeconfigPath string) (*Client, error) {
	var config *rest.Config
	var err error

	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		config, err = rest.InClusterConfig()
	} else {
		config, err = clientcmd.BuildConfigFromFlags("", kubeconfigPath)
	}
	if err != nil {
		return nil, apperrors.NewKubernetesError("failed to create config", err)
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, apperrors.NewKubernetesError("failed to create clientset", err)
	}

	return NewFromClientset(clientset), nil
}

func NewFromClientset(clientset kubernetes.Interface) *Client {
	return &Client{clientset: clientset}
}

func (c *Client) GetPod(ctx context.Context, name, namespace string) (analyzer.Pod, error) {
	pod, err := c.clientset.CoreV1().Pods(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return analyzer.Pod{}, apperrors.NewKubernetesError(fmt.Sprintf("failed to get pod %s/%s", namespace, name), err)
	}

	return analyzer.Pod{
		Spec: analyzer.PodSpec{
			ServiceAccountName: pod.Spec.ServiceAccountName,
		},
	}, nil
}

func (c *Client) GetServiceAccountIAMRole(ctx context.Context, namespace, saName string) (string, error) {
	sa, err := c.clientset.CoreV1().ServiceAccounts(namespace).Get(ctx, saName, metav1.GetOptions{})
	if err != nil {
		return "", apperrors.NewKubernetesError(fmt.Sprintf("failed to get service account %s/%s", namespace, saName), err)
	}

	roleARN, exists := sa.Annotations[RoleAnnotation]
	if !exists || roleARN == "" {
		return "", apperrors.NewKubernetesError(fmt.Sprintf("service account %s/%s", namespace, saName), apperrors.ErrNoRoleAnnotation)
	}

	return roleARN, nil
}
