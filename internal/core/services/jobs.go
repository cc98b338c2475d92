// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/bigquery"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/model"
	"google.golang.org/api/iterator"
)

var (
	ErrJobNotFound  = errors.New("job not found")
	ErrClipNotFound = errors.New("clip not found")
)

// JobService reads job records written by the job workflow.
type JobService struct {
	BigqueryClient *bigquery.Client
	DatasetName    string
	JobsTable      string
}

// GetFQN returns the dotted, fully qualified name of the jobs table.
func (s *JobService) GetFQN() string {
	fqn := s.BigqueryClient.Dataset(s.DatasetName).Table(s.JobsTable).FullyQualifiedName()
	return strings.Replace(fqn, ":", ".", -1)
}

// Get returns the record of job id, or ErrJobNotFound.
func (s *JobService) Get(ctx context.Context, id string) (*model.JobRecord, error) {
	q := s.BigqueryClient.Query(fmt.Sprintf(QryFindJobById, s.GetFQN()))
	q.Parameters = []bigquery.QueryParameter{{Name: "id", Value: id}}
	itr, err := q.Read(ctx)
	if err != nil {
		return nil, err
	}
	out := &model.JobRecord{}
	err = itr.Next(out)
	if errors.Is(err, iterator.Done) {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ClipByNumber returns clip n of a record. Clip numbers start at 1.
func ClipByNumber(record *model.JobRecord, n int) (*model.ClipRecord, error) {
	for _, c := range record.Clips {
		if c.Number == n {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: job %s has no clip %d", ErrClipNotFound, record.Id, n)
}
