package markup

// stylesheet is inlined into every page. It uses custom properties, rem and
// calc(), which the render chain rewrites for engines that lack them.
const stylesheet = `:root{--ink:#1a1a1a;--rule:1px solid #444;--pad:0.3rem}
@page{size:A4;margin:15mm}
body{font-family:"DejaVu Sans",Arial,sans-serif;font-size:10pt;color:var(--ink);margin:0}
h1{font-size:1.4rem;text-align:center;margin:0 0 0.8rem}
h2{font-size:1.1rem;margin:1rem 0 0.4rem}
table{width:100%;border-collapse:collapse;margin-bottom:0.8rem}
th,td{border:var(--rule);padding:var(--pad) calc(var(--pad) * 2);vertical-align:top}
th{background:#eee;text-align:center}
td.num{text-align:right;white-space:nowrap}
table.title td:first-child{width:35%;font-weight:bold}
table.totals td:first-child{width:70%}
tr.grand td{font-weight:bold}
p.words{font-style:italic;margin:0.4rem 0 1rem}
p.cert{line-height:1.6;text-align:justify}
div.sign{margin-top:3rem;display:flex;justify-content:space-between}
div.sign span{width:30%;border-top:var(--rule);text-align:center;padding-top:0.3rem}
`
