/*
 * Copyright 2025 CMC Lens Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package pinecone

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/pinecone-io/go-pinecone/pinecone"
)

// Defaults mirror the index the lens pipeline writes CLIP embeddings to.
const (
	DefaultIndexName = "lens-tool-768"
	DefaultDimension = 768
	DefaultRegion    = "us-east-1"
)

type AdminConfig struct {
	// Client parameters
	ApiKey     string            // required
	Headers    map[string]string // optional
	Host       string            // optional
	RestClient *http.Client      // optional
	SourceTag  string            // optional
}

// Admin manages the lifecycle of serverless indexes.
type Admin struct {
	cli *pinecone.Client
}

func NewAdmin(ctx context.Context, config *AdminConfig) (*Admin, error) {
	pc, err := pinecone.NewClient(pinecone.NewClientParams{
		ApiKey:     config.ApiKey,
		Headers:    config.Headers,
		Host:       config.Host,
		RestClient: config.RestClient,
		SourceTag:  config.SourceTag,
	})
	if err != nil {
		return nil, fmt.Errorf("pinecone: Failed to create Client: %w", err)
	}

	return &Admin{cli: pc}, nil
}

// EnsureIndexRequest describes the serverless index to create when absent.
// Zero values fall back to the lens defaults (768-dim cosine on aws/us-east-1).
type EnsureIndexRequest struct {
	Name      string
	Dimension int32
	Metric    pinecone.IndexMetric
	Cloud     pinecone.Cloud
	Region    string
}

func (r *EnsureIndexRequest) withDefaults() *EnsureIndexRequest {
	out := *r
	if out.Name == "" {
		out.Name = DefaultIndexName
	}
	if out.Dimension == 0 {
		out.Dimension = DefaultDimension
	}
	if out.Metric == "" {
		out.Metric = pinecone.Cosine
	}
	if out.Cloud == "" {
		out.Cloud = pinecone.Aws
	}
	if out.Region == "" {
		out.Region = DefaultRegion
	}
	return &out
}

// EnsureIndex creates the requested serverless index unless an index with the
// same name already exists. It returns the index description and whether a
// create call was issued. An existing index is never an error.
func (a *Admin) EnsureIndex(ctx context.Context, req *EnsureIndexRequest) (*pinecone.Index, bool, error) {
	if req == nil {
		req = &EnsureIndexRequest{}
	}

	req = req.withDefaults()
	if req.Dimension < 0 {
		return nil, false, fmt.Errorf("pinecone: invalid dimension %d for index %v", req.Dimension, req.Name)
	}

	existing, err := a.cli.ListIndexes(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("pinecone: Failed to list indexes: %w", err)
	}

	for _, idx := range existing {
		if idx.Name == req.Name {
			return idx, false, nil
		}
	}

	idx, err := a.cli.CreateServerlessIndex(ctx, &pinecone.CreateServerlessIndexRequest{
		Name:      req.Name,
		Dimension: req.Dimension,
		Metric:    req.Metric,
		Cloud:     req.Cloud,
		Region:    req.Region,
	})
	if err != nil {
		return nil, false, fmt.Errorf("pinecone: Failed to create serverless index %v: %w", req.Name, err)
	}

	return idx, true, nil
}

func (a *Admin) ListIndexes(ctx context.Context) ([]*pinecone.Index, error) {
	idxs, err := a.cli.ListIndexes(ctx)
	if err != nil {
		return nil, fmt.Errorf("pinecone: Failed to list indexes: %w", err)
	}

	return idxs, nil
}

func (a *Admin) DescribeIndex(ctx context.Context, name string) (*pinecone.Index, error) {
	idx, err := a.cli.DescribeIndex(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("pinecone: Failed to describe index %v: %w", name, err)
	}

	return idx, nil
}

func (a *Admin) DeleteIndex(ctx context.Context, name string) error {
	if err := a.cli.DeleteIndex(ctx, name); err != nil {
		return fmt.Errorf("pinecone: Failed to delete index %v: %w", name, err)
	}

	return nil
}

// Stats reports vector counts and fullness for the named index.
func (a *Admin) Stats(ctx context.Context, name, namespace string) (*pinecone.DescribeIndexStatsResponse, error) {
	idx, err := a.cli.DescribeIndex(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("pinecone: Failed to describe index %v: %w", name, err)
	}

	idxConn, err := a.cli.Index(pinecone.NewIndexConnParams{
		Host:      idx.Host,
		Namespace: namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("pinecone: Failed to create IndexConnection for Host: %v: %w", idx.Host, err)
	}
	defer idxConn.Close()

	stats, err := idxConn.DescribeIndexStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("pinecone: Failed to describe stats for index %v: %w", name, err)
	}

	return stats, nil
}

// ParseMetric maps a metric flag value to the client constant.
func ParseMetric(s string) (pinecone.IndexMetric, error) {
	switch strings.ToLower(s) {
	case "", "cosine":
		return pinecone.Cosine, nil
	case "dotproduct":
		return pinecone.Dotproduct, nil
	case "euclidean":
		return pinecone.Euclidean, nil
	default:
		return "", fmt.Errorf("pinecone: unknown metric %q", s)
	}
}

// ParseCloud maps a cloud flag value to the client constant.
func ParseCloud(s string) (pinecone.Cloud, error) {
	switch strings.ToLower(s) {
	case "", "aws":
		return pinecone.Aws, nil
	case "gcp":
		return pinecone.Gcp, nil
	case "azure":
		return pinecone.Azure, nil
	default:
		return "", fmt.Errorf("pinecone: unknown cloud %q", s)
	}
}
