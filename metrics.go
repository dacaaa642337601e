/*
Copyright 2023 Alexander Bartolomey (github@alexanderbartolomey.de)

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package ipfix

import "github.com/prometheus/client_golang/prometheus"

var (
	IEMLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "iem_lookups_total",
		Help: "Total number of Information Element Manager lookups by result",
	}, []string{"result"})

	TMTemplateOpsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tm_template_ops_total",
		Help: "Total number of Template Manager operations by operation and transport class",
	}, []string{"op", "transport"})

	TMGarbageTemplatesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tm_garbage_templates_total",
		Help: "Total number of templates retired into a garbage batch",
	})

	RECFieldsDecodedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rec_fields_decoded_total",
		Help: "Total number of Data Record fields decoded",
	})

	RECDecodeErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rec_decode_errors_total",
		Help: "Total number of Data Record decode errors by error kind",
	}, []string{"kind"})

	JSONRenderBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "json_render_bytes_total",
		Help: "Total number of bytes written by the JSON renderer",
	})

	JSONRenderErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "json_render_errors_total",
		Help: "Total number of JSON renderer errors by error kind",
	}, []string{"kind"})
)
