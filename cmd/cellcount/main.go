// Copyright (C) The Cellcount Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package main

import "github.com/loblawbio/cellcount"

func main() {
	cellcount.Main()
}
