package metrics

const namespace = "agrisense"
