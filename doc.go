/*Package rcb - ring compactable buffer.

This library provides a fixed capacity, in-memory circular buffer that stores variable sized byte blocks, each identified by a caller supplied key.


The buffer appends block data at the logical end of the occupied region, wrapping at the physical boundary.

Delete operation only flags a block as delete pending, compaction will eventually remove it.

Compaction reclaims delete pending space by shifting the surviving bytes backward to close the gaps, it runs when an add can not be admitted from free space alone, and always before buffer content is read.

Every operation reports BufferInfo, so callers can observe buffer pressure regardless of outcome.

*/
package rcb
