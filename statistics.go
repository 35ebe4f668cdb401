// Copyright 2021 Airbus Defence and Space
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gdalbridge

import "github.com/airbusgeo/gdalbridge/native"

// Statistics on a given band.
type Statistics struct {
	Min         float64
	Max         float64
	Mean        float64
	Std         float64
	Approximate bool
}

func newStatistics(st native.Statistics, approx bool) Statistics {
	return Statistics{Min: st.Min, Max: st.Max, Mean: st.Mean, Std: st.Std, Approximate: approx}
}

// ComputeStatistics returns the band's statistics, scanning its pixels. The result
// is stored by the engine and later returned by GetStatistics.
func (band Band) ComputeStatistics(opts ...StatisticsOption) (Statistics, error) {
	so := statisticsOpts{}
	for _, o := range opts {
		o.setStatisticsOpt(&so)
	}
	var st Statistics
	err := band.bridge.call(nil, so.errorHandler, func(cc *callContext) {
		nst, ret := band.handle.ComputeStatistics(cc.thread, so.approx)
		if ret != native.None {
			cc.forceCPLError(ret)
			return
		}
		st = newStatistics(nst, so.approx)
	})
	return st, err
}

// GetStatistics returns the band's statistics without scanning its pixels. ok is
// false when no statistics are available.
func (band Band) GetStatistics(opts ...StatisticsOption) (st Statistics, ok bool, err error) {
	so := statisticsOpts{}
	for _, o := range opts {
		o.setStatisticsOpt(&so)
	}
	err = band.bridge.call(nil, so.errorHandler, func(cc *callContext) {
		nst, found, ret := band.handle.GetStatistics(cc.thread, so.approx)
		if ret != native.None {
			cc.forceCPLError(ret)
			return
		}
		st, ok = newStatistics(nst, so.approx), found
	})
	if err != nil {
		return Statistics{}, false, err
	}
	return st, ok, nil
}
