// Package sense holds the background producers of sensations.
//
//   - MQTT forwards bus traffic.
//   - Clock announces each minute, maintains day_period and special_day,
//     and reports boredom.
//   - Door warns about doors left open, with a per-opening budget.
//   - Journal follows the system journal for logins and port scans.
//
// Each satisfies the lifecycle runner contract and is registered with the
// brain as a sense.
package sense
