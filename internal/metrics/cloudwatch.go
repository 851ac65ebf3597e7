package metrics

import (
	"context"
	"fmt"
	"sort"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/imrishuroy/go-storefront-checkout/internal/aws"
)

// Metric names emitted by the worker.
const (
	MetricPaymentApproved = "PaymentApproved"
	MetricPaymentFailed   = "PaymentApproveFailed"
	MetricSessionsStarted = "PaymentSessionsStarted"
	MetricSQSMessages     = "SQSMessagesProcessed"
)

// CloudWatch wraps PutMetricData. A disabled recorder drops every datum.
type CloudWatch struct {
	client    aws.CloudWatchAPI
	namespace string
	enabled   bool
	nowFunc   func() time.Time
}

func NewCloudWatch(client aws.CloudWatchAPI, namespace string, enabled bool) *CloudWatch {
	return &CloudWatch{
		client:    client,
		namespace: namespace,
		enabled:   enabled && client != nil,
		nowFunc:   time.Now,
	}
}

// PutMetric sends a single metric data point.
func (m *CloudWatch) PutMetric(ctx context.Context, name string, value float64, unit types.StandardUnit, dimensions map[string]string) error {
	if !m.enabled {
		return nil
	}

	names := make([]string, 0, len(dimensions))
	for k := range dimensions {
		names = append(names, k)
	}
	sort.Strings(names)
	dims := make([]types.Dimension, 0, len(names))
	for _, k := range names {
		dims = append(dims, types.Dimension{
			Name:  awssdk.String(k),
			Value: awssdk.String(dimensions[k]),
		})
	}

	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: awssdk.String(m.namespace),
		MetricData: []types.MetricDatum{
			{
				MetricName: awssdk.String(name),
				Value:      awssdk.Float64(value),
				Unit:       unit,
				Timestamp:  awssdk.Time(m.nowFunc()),
				Dimensions: dims,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("put metric %s: %w", name, err)
	}
	return nil
}

// RecordCount increments a counter metric.
func (m *CloudWatch) RecordCount(ctx context.Context, name string, dimensions map[string]string) error {
	return m.PutMetric(ctx, name, 1, types.StandardUnitCount, dimensions)
}

// RecordValue records an amount in minor currency units.
func (m *CloudWatch) RecordValue(ctx context.Context, name string, value float64, dimensions map[string]string) error {
	return m.PutMetric(ctx, name, value, types.StandardUnitNone, dimensions)
}

func (m *CloudWatch) Enabled() bool { return m.enabled }
