package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// Example_basicUsage demonstrates basic metrics configuration.
func Example_basicUsage() {
	// Create a separate registry for this example
	testRegistry := prometheus.NewRegistry()
	registry := NewRegistry(testRegistry)

	registry.RateLimitRequests.WithLabelValues("leaky_bucket", "test").Add(10)
	registry.RateLimitAllowed.WithLabelValues("leaky_bucket", "test").Add(8)
	registry.RateLimitDenied.WithLabelValues("leaky_bucket", "test").Add(2)

	fmt.Println(testutil.ToFloat64(registry.RateLimitAllowed.WithLabelValues("leaky_bucket", "test")))

	// Output:
	// 8
}

// Example_customNamespace demonstrates overriding the metric namespace.
func Example_customNamespace() {
	reg := prometheus.NewRegistry()
	registry := NewRegistryWithConfig(Config{
		Enabled:   true,
		Registry:  reg,
		Namespace: "myapp",
	})

	registry.RateLimitResets.WithLabelValues("leaky_bucket", "quota").Inc()

	families, _ := reg.Gather()
	for _, mf := range families {
		fmt.Println(mf.GetName())
	}

	// Output:
	// myapp_ratelimit_resets_total
}

// Example_configuration demonstrates different metrics configurations.
func Example_configuration() {
	defaultConfig := DefaultConfig()
	fmt.Printf("Default enabled: %v\n", defaultConfig.Enabled)
	fmt.Printf("Default namespace: %s\n", defaultConfig.Namespace)

	customConfig := Config{
		Enabled:   false,
		Namespace: "myapp",
	}
	fmt.Printf("Custom enabled: %v\n", customConfig.Enabled)
	fmt.Printf("Custom namespace: %s\n", customConfig.Namespace)

	// Output:
	// Default enabled: true
	// Default namespace: dripflow
	// Custom enabled: false
	// Custom namespace: myapp
}
