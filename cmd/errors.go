// SPDX-License-Identifier: Apache-2.0

package cmd

import "errors"

// ErrNotConfirmed is returned when the user declines the squash
// confirmation prompt.
var ErrNotConfirmed = errors.New("squash not confirmed")
