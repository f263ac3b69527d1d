// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
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

// Command batchdigest runs the parallel batch engine over files or stdin.
//
// Examples:
//
//	batchdigest histogram --min 0 --max 100 --bins 10 data/*.txt
//	batchdigest freq --field 2 --sep , --top 20 access.csv.gz
//	seq 1 1000000 | batchdigest count
package main

import (
	"os"

	log "github.com/sirupsen/logrus"

	"batchdigest/cmd/batchdigest/cmd"
)

func main() {
	cmd.ConfigureLogging()
	if err := cmd.RootCmd().Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
