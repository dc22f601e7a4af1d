package rowkit

// debugBuild gates extra invariant checks (e.g. use-after-advance on a
// [RowView]) that are too costly for the hot path in release builds. A
// fork built for development can flip this to true; off by default.
var debugBuild = false
